package gameconfig

import (
	"embed"
	"io/fs"
	"os"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/serializer"
)

const (
	masksFile    = "masks.json"
	packsFile    = "packs.json"
	startersFile = "starters.json"
)

//go:embed data/*.json
var embedded embed.FS

var codec = serializer.NewJSON()

// Load 加载配置，dir 为空时使用内置配置
func Load(dir string, balance *BalanceConfig, l logger.Logger) (*Catalog, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			return nil, errors.Wrap(err, "open embedded catalog")
		}
		return LoadFS(sub, balance, l)
	}
	return LoadFS(os.DirFS(dir), balance, l)
}

// LoadFS 从文件系统加载 masks.json、packs.json 以及可选的 starters.json
func LoadFS(fsys fs.FS, balance *BalanceConfig, l logger.Logger) (*Catalog, error) {
	if l == nil {
		return nil, errors.New("gameconfig: logger is required")
	}
	l = l.Named("gameconfig")

	var masks []*model.MaskDefinition
	if err := readTable(fsys, masksFile, &masks); err != nil {
		return nil, err
	}

	var packs []*model.Pack
	if err := readTable(fsys, packsFile, &packs); err != nil {
		return nil, err
	}

	var starters []string
	if err := readTable(fsys, startersFile, &starters); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		l.Warn("optional catalog table not found, no starter masks", "table", startersFile)
	}

	c, err := NewCatalog(balance, masks, packs, starters)
	if err != nil {
		return nil, err
	}

	l.Info("catalog loaded",
		"masks", len(c.Masks()),
		"packs", len(c.Packs()),
		"starters", len(c.StarterMasks()),
	)
	return c, nil
}

func readTable(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return errors.Wrapf(err, "read catalog table %s", path.Clean(name))
	}
	if err := codec.Deserialize(data, v); err != nil {
		return errors.Wrapf(err, "decode catalog table %s", name)
	}
	return nil
}
