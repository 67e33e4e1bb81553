package tui

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/y-ui/yuictl/internal/i18n"
	"github.com/y-ui/yuictl/internal/logging"
)

func TestParseTag(t *testing.T) {
	got := parseTag("title=New password, type=password,validate=password,bogus")
	assert.Equal(t, map[string]string{
		"title":    "New password",
		"type":     "password",
		"validate": "password",
	}, got)
}

func TestParseOptions(t *testing.T) {
	opts := parseOptions("Administrator:admin|operator")
	require.Len(t, opts, 2)
	assert.Equal(t, "Administrator", opts[0].Key)
	assert.Equal(t, "admin", opts[0].Value)
	assert.Equal(t, "operator", opts[1].Key)
	assert.Equal(t, "operator", opts[1].Value)
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"required", "", true},
		{"required", "  ", true},
		{"required", "ops", false},
		{"password", "12345", true},
		{"password", "123456", false},
		{"email", "not-an-email", true},
		{"email", "ops@example.com", false},
		{"account", "ops", false},
		{"account", "ops;rm", true},
		{"port", "443", false},
		{"port", "70000", true},
		{"port", "https", true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.input, func(t *testing.T) {
			err := Validators[tt.name](tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginForm(t *testing.T) {
	f := newLoginForm(i18n.NewPrinter(i18n.DefaultLang))
	require.NotNil(t, f.form)
	assert.False(t, f.Completed(), "a fresh form is not complete")
	assert.Contains(t, f.View("Log in"), "Username")
}

func TestSetupForm(t *testing.T) {
	f := newSetupForm(i18n.NewPrinter(language.SimplifiedChinese))
	assert.Empty(t, f.hint(), "no hint before a password is typed")
	assert.False(t, f.Completed())
	assert.Contains(t, f.View("初始化"), "新密码")
}

func TestOpenDebugLog(t *testing.T) {
	l, c, err := OpenDebugLog("", logging.LevelDebug)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	l.Info("discarded")

	path := filepath.Join(t.TempDir(), "tui.log")
	l, c, err = OpenDebugLog(path, logging.LevelDebug)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, c.Close())
	assert.FileExists(t, path)
}
