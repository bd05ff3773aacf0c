package global

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/afeish/blockfile/pkg/util/size"
	"github.com/caarlos0/env/v8"
	"github.com/pkg/errors"
)

var (
	_envCfgFactory = &envCfgFactory{}
)

type envCfgFactory struct {
	mu sync.RWMutex

	cfgOnce sync.Once
	cfg     *EnvCfg
}

func (f *envCfgFactory) get() *EnvCfg {
	f.cfgOnce.Do(func() {
		f.cfg = _getEnvCfgNow()
	})
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg
}

func (f *envCfgFactory) reload() {
	f.cfgOnce.Do(func() {})
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = _getEnvCfgNow()
}

type EnvCfg struct {
	Test bool `env:"BLOCKFILE_TEST"  envDefault:"false"`
	Log  struct {
		Level       string `env:"BLOCKFILE_LOG_LEVEL" envDefault:"info"`
		FileEnabled bool   `env:"BLOCKFILE_LOG_FILE_ENABLED"  envDefault:"false"`
		Dir         string `env:"BLOCKFILE_LOG_DIR"  envDefault:"/tmp/blockfile"`
	}
	Cache struct {
		BlockSize      size.SizeSuffix `env:"BLOCKFILE_BLOCK_SIZE" envDefault:"4095"`
		BlockDepth     int             `env:"BLOCKFILE_BLOCK_DEPTH" envDefault:"64"`
		ReadAheadDepth int             `env:"BLOCKFILE_READAHEAD_DEPTH" envDefault:"4"` // validated, no prefetch yet
	}
}

func GetEnvCfg() *EnvCfg {
	return _envCfgFactory.get()
}

func ReloadEnvCfg() {
	_envCfgFactory.reload()
}

func _getEnvCfgNow() *EnvCfg {
	cfg := &EnvCfg{}

	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(size.Byte): func(v string) (interface{}, error) {
				x := size.SizeSuffix(0)
				err := x.Set(v)
				if err != nil {
					return nil, errors.Wrapf(err, "unable to parse size")
				}
				return x, err
			},
		},
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		fmt.Printf("%+v\n", err)
	}
	return cfg
}
