package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/pkg/config"
	"github.com/spf13/pflag"
)

// EnvPrefix 环境变量前缀，例如 MASKPACK_LOG_LEVEL -> log.level
const EnvPrefix = "MASKPACK"

// LoadConfig 解析命令行并加载配置
// 优先级：环境变量 > 配置文件 > 默认值
// 配置文件路径：--config 显式指定 > MASKPACK_CONFIG > 可执行文件目录下的 config.yaml
func LoadConfig(args []string, target any, opts ...config.Option) (string, error) {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return "", errors.Wrap(err, "parse flags")
	}

	path := *configPath
	if !fs.Changed("config") {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		execDir, err := execDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(execDir, "config.yaml")
	}

	mgr := config.NewManager(append([]config.Option{config.WithEnvPrefix(EnvPrefix)}, opts...)...)
	if err := mgr.LoadFile(path); err != nil {
		return "", err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return "", err
	}
	if err := config.Validate(target); err != nil {
		return "", err
	}
	return path, nil
}

// execDir 可执行文件所在目录（处理符号链接）
func execDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "get executable path")
	}
	if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = realPath
	}
	return filepath.Dir(execPath), nil
}

// WatchSection 监听配置文件，变化时重新解析 key 对应的配置段并回调
// 解析失败时 section 为 nil，err 非空
func WatchSection[T any](path, key string, onChange func(section *T, err error)) (config.Manager, error) {
	mgr := config.NewManager(config.WithEnvPrefix(EnvPrefix))
	if err := mgr.LoadFile(path); err != nil {
		return nil, err
	}
	err := mgr.Watch(func() {
		var section T
		if err := mgr.UnmarshalKey(key, &section); err != nil {
			onChange(nil, err)
			return
		}
		onChange(&section, nil)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "watch config %s", path)
	}
	return mgr, nil
}
