package script

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/crystal/pkg/fileutil"
)

// Extension はスクリプトファイルの拡張子
const Extension = ".cry"

// DefaultEncoding は既定の文字コード
const DefaultEncoding = "utf-8"

// DefaultEntry はディレクトリ指定時に実行するスクリプト名
const DefaultEntry = "main" + Extension

// Script はスクリプトファイルを表す
type Script struct {
	FileName string // ファイル名（fs.FS上のパス）
	Content  string // UTF-8に変換された内容
	Size     int64  // ファイルサイズ
}

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	fsys     fs.FS
	encoding string
}

// Option はLoaderの設定
type Option func(*Loader)

// WithEncoding 文字コードを指定する（utf-8, shift_jis, euc-jp, utf-16 など）
func WithEncoding(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.encoding = name
		}
	}
}

// NewLoader Loaderを作成
func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys:     fsys,
		encoding: DefaultEncoding,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Encoding 使用する文字コード名を返す
func (l *Loader) Encoding() string {
	return l.encoding
}

// Load 単一のスクリプトファイルを読み込む（大文字小文字を無視）
func (l *Loader) Load(name string) (*Script, error) {
	actual, data, err := fileutil.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", name, err)
	}

	content, err := Decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding of %s: %w", actual, err)
	}

	return &Script{
		FileName: actual,
		Content:  content,
		Size:     int64(len(data)),
	}, nil
}

// LoadAllScripts すべての.cryファイルを読み込む
func (l *Loader) LoadAllScripts() ([]Script, error) {
	scriptFiles, err := l.FindScriptFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find script files: %w", err)
	}

	if len(scriptFiles) == 0 {
		return nil, fmt.Errorf("no script files found")
	}

	scripts := make([]Script, 0, len(scriptFiles))
	for _, filePath := range scriptFiles {
		s, err := l.Load(filePath)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *s)
	}

	return scripts, nil
}

// FindScriptFiles .cryファイルを検出（case-insensitive）
func (l *Loader) FindScriptFiles() ([]string, error) {
	var scriptFiles []string

	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// 拡張子をcase-insensitiveで比較
		if fileutil.HasExt(p, Extension) {
			scriptFiles = append(scriptFiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scriptFiles, nil
}

// FindEntry 実行するスクリプトを決める
// entry が指定されていればそれを、なければ main.cry を、
// それもなければ唯一の.cryファイルを返す
func (l *Loader) FindEntry(entry string) (string, error) {
	if entry != "" {
		return fileutil.FindFile(l.fsys, path.Dir(fileutil.Clean(entry)), path.Base(entry))
	}

	if p, err := fileutil.FindFile(l.fsys, ".", DefaultEntry); err == nil {
		return p, nil
	}

	files, err := l.FindScriptFiles()
	if err != nil {
		return "", fmt.Errorf("failed to find script files: %w", err)
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no script files found")
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("%d script files found and no %s; specify the entry script", len(files), DefaultEntry)
	}
}

// LookupEncoding 文字コード名からencoding.Encodingを取得
// UTF-8はBOMを取り除く。それ以外はWHATWGの名前（shift_jis, euc-jp, utf-16le など）で引く
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "utf-16", "utf16":
		// BOMがなければリトルエンディアンとみなす
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "sjis":
		name = "shift_jis"
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
	return enc, nil
}

// Decode 指定された文字コードからUTF-8に変換
func Decode(data []byte, encodingName string) (string, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return "", err
	}

	reader := transform.NewReader(strings.NewReader(string(data)), enc.NewDecoder())

	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", encodingName, err)
	}

	return string(utf8Data), nil
}
