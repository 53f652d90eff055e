package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	rootPathEnvVar = "BALLOT_PATH"

	envPrefix = "BALLOT"

	cfgFileName = "ballot.toml"

	defaultRepoRoot = "~/.ballot"

	LogsDirName = "logs"

	StorageDirName = "leveldb"

	SepoliaChainID = 11155111
)

var ErrRepoExists = errors.New("ballot repo already exists")

// Repo is the ballot home: ballot.toml plus the local leveldb, the logs and the deployment record.
type Repo struct {
	Config *Config
}

// Exist reports whether something is at path; errors other than not-exist count as present.
func Exist(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}

// Init creates a repo with the default config at root.
func Init(root string) (*Repo, error) {
	if Exist(filepath.Join(root, cfgFileName)) {
		return nil, errors.Wrap(ErrRepoExists, root)
	}
	if err := CheckWritable(root); err != nil {
		return nil, err
	}

	r := &Repo{Config: DefaultConfig(root)}
	if err := r.Flush(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads the repo at root (BALLOT_PATH or ~/.ballot when empty), creating a default one on
// first use. BALLOT_* environment variables override the file.
func Load(root string) (*Repo, error) {
	root, err := LoadRepoRootFromEnv(root)
	if err != nil {
		return nil, err
	}

	r := &Repo{Config: DefaultConfig(root)}
	if !Exist(r.ConfigPath()) {
		if err := CheckWritable(root); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
		if err := r.Flush(); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
		return r, nil
	}

	if err := CheckWritable(root); err != nil {
		return nil, err
	}
	if err := readConfig(r.ConfigPath(), r.Config); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", r.ConfigPath())
	}
	r.Config.RepoRoot = root

	return r, nil
}

func (r *Repo) ConfigPath() string {
	return filepath.Join(r.Config.RepoRoot, cfgFileName)
}

// Flush writes the config, with the environment overrides folded in.
func (r *Repo) Flush() error {
	if err := writeConfig(r.ConfigPath(), r.Config); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	if err := readConfig(r.ConfigPath(), r.Config); err != nil {
		return errors.Wrap(err, "failed to read config from environment")
	}
	if err := writeConfig(r.ConfigPath(), r.Config); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}

// StoragePath is where the local leveldb lives.
func (r *Repo) StoragePath() string {
	return filepath.Join(r.Config.RepoRoot, StorageDirName)
}

// DeploymentPath resolves deployment_file against the repo root when it is relative.
func (r *Repo) DeploymentPath() string {
	p := r.Config.DeploymentFile
	if p == "" {
		p = DefaultConfig("").DeploymentFile
	}
	return ExpandPath(r.Config.RepoRoot, p)
}

// ExpandPath expands a leading ~ and joins relative paths onto base.
func ExpandPath(base, p string) string {
	expanded, err := homedir.Expand(p)
	if err == nil {
		p = expanded
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return p
}

func writeConfig(cfgPath string, config *Config) error {
	raw, err := MarshalConfig(config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, []byte(raw), 0644)
}

func MarshalConfig(config *Config) (string, error) {
	var buf bytes.Buffer
	e := toml.NewEncoder(&buf)
	e.SetIndentTables(true)
	e.SetArraysMultiline(true)
	if err := e.Encode(config); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoadRepoRootFromEnv returns repoRoot when set, else BALLOT_PATH, else ~/.ballot.
func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	if repoRoot != "" {
		return repoRoot, nil
	}
	if p := os.Getenv(rootPathEnvVar); p != "" {
		return p, nil
	}
	return homedir.Expand(defaultRepoRoot)
}

func readConfig(cfgPath string, config *Config) error {
	vp := viper.New()
	vp.SetConfigFile(cfgPath)
	vp.SetConfigType("toml")
	vp.AutomaticEnv()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := vp.ReadInConfig(); err != nil {
		return err
	}
	return vp.Unmarshal(config)
}

// CheckWritable makes sure dir exists and the current user can create files in it.
func CheckWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("cannot create %s, incorrect permissions", dir)
		}
		return errors.Wrapf(err, "create %s", dir)
	}

	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("%s is not writeable by the current user", dir)
		}
		return errors.Wrapf(err, "check %s is writable", dir)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
