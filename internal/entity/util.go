package entity

import "strings"

func foldKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
