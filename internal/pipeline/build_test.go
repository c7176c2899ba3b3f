package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()
	base := common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "k", Models: []string{"gpt-4o"}}

	p, err := Build(ctx, base, nil)
	require.NoError(t, err)
	assert.Nil(t, p.prepare)

	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "magick"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", bin)

	withHEIC := base
	withHEIC.HEICConverter = "magick"
	p, err = Build(ctx, withHEIC, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.prepare)

	missing := base
	missing.HEICConverter = "heif-convert"
	_, err = Build(ctx, missing, nil)
	require.Error(t, err)
	assert.Equal(t, constants.ErrConfig, common.ErrorTypeOf(err))

	badTool := base
	badTool.HEICConverter = "gimp"
	_, err = Build(ctx, badTool, nil)
	require.Error(t, err)
	assert.Equal(t, constants.ErrConfig, common.ErrorTypeOf(err))

	badProvider := base
	badProvider.Provider = "claude"
	_, err = Build(ctx, badProvider, nil)
	require.Error(t, err)
	assert.Equal(t, constants.ErrConfig, common.ErrorTypeOf(err))
}
