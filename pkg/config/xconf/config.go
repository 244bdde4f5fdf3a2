package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式
type Format string

// 支持的格式
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置。基础读取直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回当前 koanf 实例。Reload 之后旧实例仍可读，但数据是旧的。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置解码到 target，path 为空时解码整个配置。
	Unmarshal(path string, target any) error

	// Reload 重新读取文件。从字节创建的配置返回 ErrNotReloadable。
	Reload() error

	// Path 文件路径，从字节创建时为空
	Path() string

	Format() Format
}

type koanfConfig struct {
	k      atomic.Pointer[koanf.Koanf]
	path   string
	format Format
	opts   *Options

	// reloadMu 串行化 Reload，避免较慢的旧读取覆盖新结果
	reloadMu sync.Mutex
}

var _ Config = (*koanfConfig)(nil)

// New 读取 path 指定的文件，按扩展名（.yaml/.yml/.json）识别格式。空文件得到空配置。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{path: path, format: format, opts: applyOptions(opts)}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromBytes 从内存数据创建配置，常用于 ConfigMap 或 etcd 中的配置片段。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	c := &koanfConfig{format: format, opts: applyOptions(opts)}
	k, err := c.parse(data)
	if err != nil {
		return nil, err
	}
	c.k.Store(k)
	return c, nil
}

// MustUnmarshal 与 Config.Unmarshal 相同，失败时 panic。用于启动阶段的必需配置。
func MustUnmarshal(c Config, path string, target any) {
	if err := c.Unmarshal(path, target); err != nil {
		panic(err)
	}
}

func (c *koanfConfig) Client() *koanf.Koanf { return c.k.Load() }

func (c *koanfConfig) Unmarshal(path string, target any) error {
	err := c.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.Tag})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := c.parse(data)
	if err != nil {
		return err
	}
	c.k.Store(k)
	return nil
}

func (c *koanfConfig) Path() string   { return c.path }
func (c *koanfConfig) Format() Format { return c.format }

func (c *koanfConfig) parse(data []byte) (*koanf.Koanf, error) {
	var parser koanf.Parser
	switch c.format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, c.format)
	}
	k := koanf.New(c.opts.Delim)
	if len(data) == 0 {
		return k, nil
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
}
