package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/zurustar/crystal/pkg/cli"
	"github.com/zurustar/crystal/pkg/compiler"
	"github.com/zurustar/crystal/pkg/logger"
	"github.com/zurustar/crystal/pkg/repl"
	"github.com/zurustar/crystal/pkg/script"
	"github.com/zurustar/crystal/pkg/vm"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer // スクリプトの print の出力先
	stderr io.Writer // ログとREPLのエラーの出力先
}

// New Applicationを作成
func New(stdout, stderr io.Writer) *Application {
	return &Application{
		stdout: stdout,
		stderr: stderr,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "config", app.config.String())

	globals := app.newGlobals()

	// 3. スクリプトの読み込み・コンパイル・実行
	if app.config.ScriptDir != "" {
		if err := app.runScript(globals); err != nil {
			return err
		}
	}

	// 4. 対話モード（スクリプト未指定時も）
	if app.config.Interactive || app.config.ScriptDir == "" {
		app.runREPL(globals)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel, app.config.LogFormat, app.stderr); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// newGlobals 組み込み関数を登録したグローバルスコープを作成
func (app *Application) newGlobals() *vm.Scope {
	opts := []vm.ScopeOption{vm.WithLogger(app.log)}
	if app.config.MaxCallDepth > 0 {
		opts = append(opts, vm.WithMaxCallDepth(app.config.MaxCallDepth))
	}
	globals := vm.NewScope(nil, opts...)
	vm.RegisterBuiltins(globals, app.stdout)
	return globals
}

// runScript エントリースクリプトを読み込み、コンパイルして実行する
func (app *Application) runScript(globals *vm.Scope) error {
	s, err := app.loadScript()
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	app.log.Info("Script loaded", "name", s.FileName, "size", s.Size)
	app.log.Debug("Script content preview", "name", s.FileName, "preview", truncate(s.Content, 100))

	p, err := compiler.CompileScript(s)
	if err != nil {
		app.log.Error("Compilation failed", "file", s.FileName, "error", err)
		return err
	}

	app.log.Info("Script compiled successfully",
		"functions", len(p.Functions), "classes", len(p.Classes), "tokens", len(p.Main))

	result, err := p.Run(globals)
	if err != nil {
		app.log.Error("Script failed", "file", s.FileName, "error", err)
		return err
	}

	app.log.Info("Script finished", "result", result.String(), "type", result.TypeName())
	return nil
}

// loadScript スクリプトディレクトリからエントリースクリプトを読み込む
func (app *Application) loadScript() (*script.Script, error) {
	info, err := os.Stat(app.config.ScriptDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", app.config.ScriptDir)
	}

	loader := script.NewLoader(os.DirFS(app.config.ScriptDir), script.WithEncoding(app.config.Encoding))

	entry, err := loader.FindEntry(app.config.Entry)
	if err != nil {
		return nil, err
	}
	app.log.Debug("Entry script selected", "dir", app.config.ScriptDir, "entry", entry, "encoding", loader.Encoding())

	return loader.Load(entry)
}

// runREPL 対話モードを開始
func (app *Application) runREPL(globals *vm.Scope) {
	app.log.Info("Starting REPL")
	repl.NewSessionWithScope(globals, app.stdout, app.stderr).Run()
}

// truncate 文字列を指定した文字数で切り詰める
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
