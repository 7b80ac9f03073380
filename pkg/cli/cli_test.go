package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crystal.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				LogLevel:  "info",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
		{
			name: "ディレクトリ指定",
			args: []string{"/path/to/scripts"},
			expected: Config{
				ScriptDir: "/path/to/scripts",
				LogLevel:  "info",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
		{
			name: "ログレベル指定",
			args: []string{"--log-level", "debug"},
			expected: Config{
				LogLevel:  "debug",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
		{
			name: "ログレベル指定（短縮形）",
			args: []string{"-l", "ERROR"},
			expected: Config{
				LogLevel:  "error",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
		{
			name: "ログ形式指定",
			args: []string{"--log-format=json"},
			expected: Config{
				LogLevel:  "info",
				LogFormat: "json",
				Encoding:  "utf-8",
			},
		},
		{
			name: "文字コード指定",
			args: []string{"-e", "shift_jis", "old"},
			expected: Config{
				ScriptDir: "old",
				LogLevel:  "info",
				LogFormat: "text",
				Encoding:  "shift_jis",
			},
		},
		{
			name: "対話モード",
			args: []string{"-i"},
			expected: Config{
				LogLevel:    "info",
				LogFormat:   "text",
				Encoding:    "utf-8",
				Interactive: true,
			},
		},
		{
			name: "ヘルプ表示",
			args: []string{"--help"},
			expected: Config{
				LogLevel:  "info",
				LogFormat: "text",
				Encoding:  "utf-8",
				ShowHelp:  true,
			},
		},
		{
			name: ".cryファイルパス指定",
			args: []string{"samples/game/Main.CRY"},
			expected: Config{
				ScriptDir: "samples/game",
				Entry:     "Main.CRY",
				LogLevel:  "info",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
		{
			name: ".cryファイルパス指定とオプション",
			args: []string{"-i", "samples/game/main.cry", "--log-level", "warn"},
			expected: Config{
				ScriptDir:   "samples/game",
				Entry:       "main.cry",
				LogLevel:    "warn",
				LogFormat:   "text",
				Encoding:    "utf-8",
				Interactive: true,
			},
		},
		{
			name: "ハイフンで始まるファイル名",
			args: []string{"-l", "debug", "--", "-odd.cry"},
			expected: Config{
				ScriptDir: ".",
				Entry:     "-odd.cry",
				LogLevel:  "debug",
				LogFormat: "text",
				Encoding:  "utf-8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(*config, tt.expected) {
				t.Errorf("config = %+v, want %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "無効なログレベル",
			args: []string{"--log-level", "invalid"},
		},
		{
			name: "無効なログレベル（短縮形）",
			args: []string{"-l", "trace"},
		},
		{
			name: "無効なログ形式",
			args: []string{"--log-format", "xml"},
		},
		{
			name: "無効な文字コード",
			args: []string{"-e", "klingon"},
		},
		{
			name: "未知のフラグ",
			args: []string{"--timeout", "5"},
		},
		{
			name: "位置引数が多すぎる",
			args: []string{"a.cry", "b.cry"},
		},
		{
			name: "存在しない設定ファイル",
			args: []string{"-c", filepath.Join(os.TempDir(), "does-not-exist", "crystal.yaml")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvEncoding, "euc-jp")

	config, err := ParseArgs([]string{"scripts"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
	if config.Encoding != "euc-jp" {
		t.Errorf("Encoding = %q, want euc-jp", config.Encoding)
	}

	// コマンドラインフラグが環境変数より優先
	config, err = ParseArgs([]string{"-l", "warn", "-e", "utf-8"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.LogLevel != "warn" || config.Encoding != "utf-8" {
		t.Errorf("flags should win: LogLevel = %q, Encoding = %q", config.LogLevel, config.Encoding)
	}
}

func TestParseArgs_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
log_level: error
log_format: json
encoding: shift_jis
entry: start.cry
max_call_depth: 200
`)

	config, err := ParseArgs([]string{"-c", path, "scripts"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := Config{
		ScriptDir:    "scripts",
		Entry:        "start.cry",
		LogLevel:     "error",
		LogFormat:    "json",
		Encoding:     "shift_jis",
		ConfigPath:   path,
		MaxCallDepth: 200,
	}
	if !reflect.DeepEqual(*config, expected) {
		t.Errorf("config = %+v, want %+v", *config, expected)
	}
}

func TestParseArgs_Precedence(t *testing.T) {
	path := writeConfig(t, "log_level: error\nencoding: shift_jis\nentry: start.cry\n")

	// 環境変数 > 設定ファイル
	t.Setenv(EnvLogLevel, "warn")
	config, err := ParseArgs([]string{"--config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (env over file)", config.LogLevel)
	}
	if config.Encoding != "shift_jis" {
		t.Errorf("Encoding = %q, want shift_jis (file over default)", config.Encoding)
	}

	// フラグ > 環境変数 > 設定ファイル
	config, err = ParseArgs([]string{"--config", path, "-l", "debug", "dir/other.cry"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (flag over env)", config.LogLevel)
	}
	if config.Entry != "other.cry" {
		t.Errorf("Entry = %q, want other.cry (argument over file)", config.Entry)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    FileConfig
		wantErr bool
	}{
		{
			name:    "空のファイル",
			content: "",
			want:    FileConfig{},
		},
		{
			name:    "一部の項目",
			content: "encoding: euc-jp\n",
			want:    FileConfig{Encoding: "euc-jp"},
		},
		{
			name:    "未知のキー",
			content: "timeout: 10\n",
			wantErr: true,
		},
		{
			name:    "型の不一致",
			content: "max_call_depth: deep\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := LoadConfigFile(writeConfig(t, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *fc != tt.want {
				t.Errorf("FileConfig = %+v, want %+v", *fc, tt.want)
			}
		})
	}
}

func TestParseArgs_NegativeDepth(t *testing.T) {
	path := writeConfig(t, "max_call_depth: -1\n")
	if _, err := ParseArgs([]string{"-c", path}); err == nil {
		t.Error("expected error for negative max_call_depth")
	}
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"a.cry", "-l", "debug"}, []string{"-l", "debug", "--", "a.cry"}},
		{[]string{"-i", "a.cry"}, []string{"-i", "--", "a.cry"}},
		{[]string{"--log-format=json", "a.cry"}, []string{"--log-format=json", "--", "a.cry"}},
		{[]string{"-h"}, []string{"-h"}},
		{[]string{"--", "-x.cry"}, []string{"--", "-x.cry"}},
	}

	for i, tt := range tests {
		got := reorderArgs(tt.args)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("tests[%d] - %v: got %v, want %v", i, tt.args, got, tt.want)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"--log-level", "--encoding", "--config", "--interactive", EnvLogLevel, "max_call_depth"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help does not mention %s", want)
		}
	}
}
