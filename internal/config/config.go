// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the vix driver configuration file.
package config

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/pathutils"
	"github.com/juju/vixdriver/internal/vmrun"
)

const (
	InstancesPathKey      = "instances-path"
	ImageCachePathKey     = "image-cache-path"
	VMRunPathKey          = "vmrun-path"
	HostTypeKey           = "host-type"
	ToolsISOPathKey       = "tools-iso-path"
	QemuImgPathKey        = "qemu-img-path"
	VMwareConfigPathKey   = "vmware-config-path"
	MyIPKey               = "my-ip"
	LockTimeoutKey        = "lock-timeout"
	ImageStoreKey         = "image-store"
	ImageStoreBucketKey   = "bucket"
	ImageStoreRegionKey   = "region"
	ImageStoreEndpointKey = "endpoint"
	ImageStorePrefixKey   = "prefix"
	defaultImageCacheDir  = pathutils.ReservedPrefix + "base"
)

// Defaults for optional keys.
const (
	DefaultVMRunPath    = "vmrun"
	DefaultHostType     = hypervisor.HostWorkstation
	DefaultToolsISOPath = "/usr/lib/vmware/isoimages"
	DefaultQemuImgPath  = "qemu-img"
	DefaultLockTimeout  = 10 * time.Minute
	DefaultRegion       = "us-east-1"
	DefaultPrefix       = "images/"
)

var imageStoreChecker = schema.FieldMap(
	schema.Fields{
		ImageStoreBucketKey:   schema.String(),
		ImageStoreRegionKey:   schema.String(),
		ImageStoreEndpointKey: schema.String(),
		ImageStorePrefixKey:   schema.String(),
	},
	schema.Defaults{
		ImageStoreRegionKey:   DefaultRegion,
		ImageStoreEndpointKey: schema.Omit,
		ImageStorePrefixKey:   DefaultPrefix,
	},
)

var configChecker = schema.StrictFieldMap(
	schema.Fields{
		InstancesPathKey:    schema.String(),
		ImageCachePathKey:   schema.String(),
		VMRunPathKey:        schema.String(),
		HostTypeKey:         schema.OneOf(schema.Const(string(hypervisor.HostWorkstation)), schema.Const(string(hypervisor.HostPlayer)), schema.Const(string(hypervisor.HostFusion))),
		ToolsISOPathKey:     schema.String(),
		QemuImgPathKey:      schema.String(),
		VMwareConfigPathKey: schema.String(),
		MyIPKey:             schema.String(),
		LockTimeoutKey:      schema.String(),
		ImageStoreKey:       imageStoreChecker,
	},
	schema.Defaults{
		ImageCachePathKey:   schema.Omit,
		VMRunPathKey:        DefaultVMRunPath,
		HostTypeKey:         string(DefaultHostType),
		ToolsISOPathKey:     DefaultToolsISOPath,
		QemuImgPathKey:      DefaultQemuImgPath,
		VMwareConfigPathKey: vmrun.DefaultProductConfigPath,
		MyIPKey:             schema.Omit,
		LockTimeoutKey:      DefaultLockTimeout.String(),
	},
)

// ImageStore configures the S3 bucket images are kept in.
type ImageStore struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// Config is the driver configuration.
type Config struct {
	InstancesPath    string
	ImageCachePath   string
	VMRunPath        string
	HostType         hypervisor.HostType
	ToolsISOPath     string
	QemuImgPath      string
	VMwareConfigPath string
	MyIP             string
	LockTimeout      time.Duration
	ImageStore       ImageStore
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for key, path := range map[string]string{
		InstancesPathKey:    c.InstancesPath,
		ImageCachePathKey:   c.ImageCachePath,
		ToolsISOPathKey:     c.ToolsISOPath,
		VMwareConfigPathKey: c.VMwareConfigPath,
	} {
		if path == "" {
			return errors.NotValidf("empty %s", key)
		}
		if !filepath.IsAbs(path) {
			return errors.NotValidf("relative %s %q", key, path)
		}
	}
	if !c.HostType.Validate() {
		return errors.NotValidf("%s %q", HostTypeKey, c.HostType)
	}
	if c.VMRunPath == "" {
		return errors.NotValidf("empty %s", VMRunPathKey)
	}
	if c.MyIP != "" && net.ParseIP(c.MyIP) == nil {
		return errors.NotValidf("%s %q", MyIPKey, c.MyIP)
	}
	if c.LockTimeout <= 0 {
		return errors.NotValidf("%s %v", LockTimeoutKey, c.LockTimeout)
	}
	if c.ImageStore.Bucket == "" {
		return errors.NotValidf("empty %s %s", ImageStoreKey, ImageStoreBucketKey)
	}
	return nil
}

// Parse coerces the YAML document in data into a validated Config.
func Parse(data []byte) (Config, error) {
	var attrs map[string]any
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return Config{}, errors.Annotate(err, "parsing config")
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return New(attrs)
}

// New builds a validated Config from raw attributes.
func New(attrs map[string]any) (Config, error) {
	coerced, err := configChecker.Coerce(attrs, nil)
	if err != nil {
		return Config{}, errors.NewNotValid(err, "invalid config")
	}
	m := coerced.(map[string]any)
	store := m[ImageStoreKey].(map[string]any)

	timeout, err := time.ParseDuration(m[LockTimeoutKey].(string))
	if err != nil {
		return Config{}, errors.NotValidf("%s %q", LockTimeoutKey, m[LockTimeoutKey])
	}
	cfg := Config{
		InstancesPath:    m[InstancesPathKey].(string),
		ImageCachePath:   stringOr(m, ImageCachePathKey, ""),
		VMRunPath:        m[VMRunPathKey].(string),
		HostType:         hypervisor.HostType(m[HostTypeKey].(string)),
		ToolsISOPath:     m[ToolsISOPathKey].(string),
		QemuImgPath:      m[QemuImgPathKey].(string),
		VMwareConfigPath: m[VMwareConfigPathKey].(string),
		MyIP:             stringOr(m, MyIPKey, ""),
		LockTimeout:      timeout,
		ImageStore: ImageStore{
			Bucket:   store[ImageStoreBucketKey].(string),
			Region:   store[ImageStoreRegionKey].(string),
			Endpoint: stringOr(store, ImageStoreEndpointKey, ""),
			Prefix:   store[ImageStorePrefixKey].(string),
		},
	}
	if cfg.ImageCachePath == "" && cfg.InstancesPath != "" {
		cfg.ImageCachePath = filepath.Join(cfg.InstancesPath, defaultImageCacheDir)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, errors.NotFoundf("config file %q", path)
	} else if err != nil {
		return Config{}, errors.Trace(err)
	}
	cfg, err := Parse(data)
	return cfg, errors.Annotatef(err, "loading %q", path)
}

func stringOr(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}
