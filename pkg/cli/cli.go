package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/crystal/pkg/fileutil"
	"github.com/zurustar/crystal/pkg/script"
)

// 既定値
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// 環境変数名
const (
	EnvLogLevel = "CRYSTAL_LOG_LEVEL"
	EnvEncoding = "CRYSTAL_ENCODING"
)

// Config はコマンドライン引数・環境変数・設定ファイルから解析された設定を保持する
type Config struct {
	ScriptDir    string // スクリプトのディレクトリ（空ならREPL）
	Entry        string // エントリースクリプト名（.cryファイル指定時または設定ファイル）
	LogLevel     string // ログレベル（debug, info, warn, error）
	LogFormat    string // ログ形式（text, json）
	Encoding     string // スクリプトの文字コード
	ConfigPath   string // 設定ファイルのパス
	MaxCallDepth int    // 関数呼び出しの最大深度（0は既定値）
	Interactive  bool   // 対話モード
	ShowHelp     bool   // ヘルプ表示フラグ
}

// FileConfig はYAML設定ファイルの内容
type FileConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Encoding     string `yaml:"encoding"`
	Entry        string `yaml:"entry"`
	MaxCallDepth int    `yaml:"max_call_depth"`
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: フラグ > 環境変数 > 設定ファイル > 既定値
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("crystal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	flags := &Config{}
	fs.StringVar(&flags.LogLevel, "log-level", DefaultLogLevel, "ログレベル（debug, info, warn, error）")
	fs.StringVar(&flags.LogLevel, "l", DefaultLogLevel, "ログレベル（短縮形）")
	fs.StringVar(&flags.LogFormat, "log-format", DefaultLogFormat, "ログ形式（text, json）")
	fs.StringVar(&flags.Encoding, "encoding", script.DefaultEncoding, "スクリプトの文字コード")
	fs.StringVar(&flags.Encoding, "e", script.DefaultEncoding, "スクリプトの文字コード（短縮形）")
	fs.StringVar(&flags.ConfigPath, "config", "", "設定ファイル（YAML）")
	fs.StringVar(&flags.ConfigPath, "c", "", "設定ファイル（短縮形）")
	fs.BoolVar(&flags.Interactive, "interactive", false, "対話モード")
	fs.BoolVar(&flags.Interactive, "i", false, "対話モード（短縮形）")
	fs.BoolVar(&flags.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&flags.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 明示的に指定されたフラグを記録
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	config := &Config{
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Encoding:    script.DefaultEncoding,
		ConfigPath:  flags.ConfigPath,
		Interactive: flags.Interactive,
		ShowHelp:    flags.ShowHelp,
	}
	if config.ShowHelp {
		return config, nil
	}

	// 設定ファイル
	if config.ConfigPath != "" {
		fc, err := LoadConfigFile(config.ConfigPath)
		if err != nil {
			return nil, err
		}
		fc.apply(config)
	}

	// 環境変数
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv(EnvEncoding); v != "" {
		config.Encoding = v
	}

	// コマンドラインフラグ
	if set["log-level"] || set["l"] {
		config.LogLevel = flags.LogLevel
	}
	if set["log-format"] {
		config.LogFormat = flags.LogFormat
	}
	if set["encoding"] || set["e"] {
		config.Encoding = flags.Encoding
	}

	config.LogLevel = strings.ToLower(config.LogLevel)
	config.LogFormat = strings.ToLower(config.LogFormat)

	if err := config.validate(); err != nil {
		return nil, err
	}

	// 位置引数（スクリプトのパス）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	if fs.NArg() == 1 {
		path := fs.Arg(0)

		// .cryファイルが指定された場合、ディレクトリとエントリーファイルに分離
		if fileutil.HasExt(path, script.Extension) {
			config.ScriptDir = filepath.Dir(path)
			config.Entry = filepath.Base(path)
		} else {
			config.ScriptDir = path
		}
	}

	return config, nil
}

// validate 設定値を検証
func (c *Config) validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}
	if _, err := script.LookupEncoding(c.Encoding); err != nil {
		return err
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("max_call_depth must be non-negative, got %d", c.MaxCallDepth)
	}
	return nil
}

// LoadConfigFile YAML設定ファイルを読み込む
// 未知のキーはエラーとする
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// apply 設定ファイルの値をConfigに反映（空の項目は無視）
func (fc *FileConfig) apply(c *Config) {
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.Encoding != "" {
		c.Encoding = fc.Encoding
	}
	if fc.Entry != "" {
		c.Entry = fc.Entry
	}
	c.MaxCallDepth = fc.MaxCallDepth
}

// booleanFlags は値を取らないフラグ
var booleanFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"-i": true, "--interactive": true, "-interactive": true,
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// --flag=value の形式は次の引数を取らない
			if strings.Contains(arg, "=") || booleanFlags[arg] {
				continue
			}
			// 次の引数が値である可能性をチェック
			// （-l debug のような場合）
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	if len(positional) > 0 {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

// String ログ用の設定の要約
func (c *Config) String() string {
	depth := "default"
	if c.MaxCallDepth > 0 {
		depth = strconv.Itoa(c.MaxCallDepth)
	}
	return fmt.Sprintf("dir=%q entry=%q encoding=%s log=%s/%s depth=%s interactive=%v",
		c.ScriptDir, c.Entry, c.Encoding, c.LogLevel, c.LogFormat, depth, c.Interactive)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `crystal - Crystal Script Runtime

Usage:
  crystal [options] [script-path]

Arguments:
  script-path   スクリプトのディレクトリ、または.cryファイルのパス（省略時はREPL）
                ディレクトリを指定した場合、main.cry（または唯一の.cryファイル）を実行
                .cryファイルを指定した場合、そのファイルを実行

Options:
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-format <format>       ログ形式: text, json（デフォルト: text）
  -e, --encoding <name>       スクリプトの文字コード: utf-8, shift_jis, euc-jp, utf-16 など（デフォルト: utf-8）
  -c, --config <file>         設定ファイル（YAML）
  -i, --interactive           対話モード（REPL）
  -h, --help                  このヘルプを表示

Environment Variables:
  CRYSTAL_LOG_LEVEL=<level>   ログレベル
  CRYSTAL_ENCODING=<name>     スクリプトの文字コード

Config File Keys:
  log_level, log_format, encoding, entry, max_call_depth

Examples:
  crystal /path/to/scripts            ディレクトリを指定（main.cryを実行）
  crystal /path/to/scripts/game.cry   ファイルを明示的に指定
  crystal -e shift_jis old.cry        Shift-JISのスクリプトを実行
  crystal -c crystal.yaml scripts     設定ファイルを使用
  crystal                             REPLを起動
`)
}
