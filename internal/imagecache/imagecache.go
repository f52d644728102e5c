// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package imagecache keeps a shared, deduplicated cache of base disk
// images on local storage. Images are fetched from an image backend and
// converted to VMDK at most once per image id; entries are immutable
// once they are visible in the cache directory.
package imagecache

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/mutex/v2"
	"github.com/juju/utils/v4"
)

var logger = loggo.GetLogger("vix.imagecache")

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
	Tracef(message string, args ...any)
}

// Backend is the image service images are fetched from and exported to.
type Backend interface {
	// Metadata returns what the backend knows about an image.
	Metadata(ctx context.Context, id string) (Metadata, error)

	// Download writes the contents of an image to w.
	Download(ctx context.Context, id string, w io.Writer) (int64, error)

	// Upload stores a new image read from r and returns its metadata,
	// including the id assigned by the backend.
	Upload(ctx context.Context, meta Metadata, r io.Reader) (Metadata, error)
}

// ConvertFunc converts the disk image at src, in the given format, into
// a VMDK at dst.
type ConvertFunc func(ctx context.Context, src, dst, format string) error

// AcquireLockFunc takes a machine wide lock with the given name and
// returns the function releasing it.
type AcquireLockFunc func(ctx context.Context, name string) (func(), error)

// BaseImage is a ready entry of the cache.
type BaseImage struct {
	ID     string
	Path   string
	Format string
}

// Config holds the dependencies of a Cache.
type Config struct {
	Backend  Backend
	CacheDir string

	// Convert defaults to running qemu-img at QemuImgPath.
	Convert     ConvertFunc
	QemuImgPath string

	// AcquireLock defaults to a juju/mutex machine lock bounded by
	// LockTimeout.
	AcquireLock AcquireLockFunc
	LockTimeout time.Duration

	Clock   clock.Clock
	Metrics *Collector
	Logger  Logger
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Backend == nil {
		return errors.NotValidf("nil Backend")
	}
	if c.CacheDir == "" {
		return errors.NotValidf("empty CacheDir")
	}
	if !filepath.IsAbs(c.CacheDir) {
		return errors.NotValidf("relative CacheDir %q", c.CacheDir)
	}
	if c.LockTimeout < 0 {
		return errors.NotValidf("negative LockTimeout")
	}
	return nil
}

// Cache is the base image store.
type Cache struct {
	backend     Backend
	dir         string
	convert     ConvertFunc
	acquireLock AcquireLockFunc
	clock       clock.Clock
	metrics     *Collector
	logger      Logger

	// locks serialises fetches per image id; unrelated images are
	// fetched in parallel.
	locks *kmutex.Kmutex
}

// NewCache returns a Cache storing its entries in cfg.CacheDir.
func NewCache(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, errors.Annotatef(err, "creating image cache directory %q", cfg.CacheDir)
	}
	c := &Cache{
		backend:     cfg.Backend,
		dir:         cfg.CacheDir,
		convert:     cfg.Convert,
		acquireLock: cfg.AcquireLock,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		locks:       kmutex.New(),
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}
	if c.logger == nil {
		c.logger = logger
	}
	if c.metrics == nil {
		c.metrics = NewMetricsCollector()
	}
	if c.convert == nil {
		c.convert = qemuImgConverter(cfg.QemuImgPath)
	}
	if c.acquireLock == nil {
		c.acquireLock = machineLock(c.clock, cfg.LockTimeout)
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// ImageInfo returns the interpreted metadata of an image.
func (c *Cache) ImageInfo(ctx context.Context, id string) (ImageInfo, error) {
	meta, err := c.backend.Metadata(ctx, id)
	if err != nil {
		return ImageInfo{}, errors.Annotatef(err, "getting metadata of image %q", id)
	}
	if meta.ID == "" {
		meta.ID = id
	}
	info, err := ParseImageInfo(meta)
	return info, errors.Trace(err)
}

// CachedImage returns the local path of the image, fetching it first if
// it is not cached yet. Concurrent callers asking for the same image
// wait for a single fetch and all receive the same path.
func (c *Cache) CachedImage(ctx context.Context, id string) (string, error) {
	entry, err := c.Entry(ctx, id)
	if err != nil {
		return "", errors.Trace(err)
	}
	return entry.Path, nil
}

// Entry returns the ready cache entry for the image, fetching it first
// if needed.
func (c *Cache) Entry(ctx context.Context, id string) (BaseImage, error) {
	if err := validateImageID(id); err != nil {
		return BaseImage{}, errors.Trace(err)
	}
	path := c.imagePath(id)
	entry := BaseImage{ID: id, Path: path, Format: FormatVMDK}

	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	if ready(path) {
		c.metrics.requests.WithLabelValues(resultHit).Inc()
		return entry, nil
	}

	release, err := c.acquireLock(ctx, lockName(id))
	if err != nil {
		c.metrics.requests.WithLabelValues(resultError).Inc()
		return BaseImage{}, errors.Annotatef(err, "locking image %q", id)
	}
	defer release()

	// Another process sharing the cache may have fetched the image
	// while we waited for the machine lock.
	if ready(path) {
		c.metrics.requests.WithLabelValues(resultHit).Inc()
		return entry, nil
	}

	start := c.clock.Now()
	if err := c.fetch(ctx, id, path); err != nil {
		c.metrics.requests.WithLabelValues(resultError).Inc()
		return BaseImage{}, errors.Annotatef(err, "fetching image %q", id)
	}
	c.metrics.requests.WithLabelValues(resultMiss).Inc()
	c.metrics.fetchDuration.Observe(c.clock.Now().Sub(start).Seconds())
	return entry, nil
}

// SaveImage uploads the disk image at path to the backend under the
// given name and returns the id the backend assigned to it.
func (c *Cache) SaveImage(ctx context.Context, name, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Annotatef(err, "opening %q", path)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", errors.Trace(err)
	}

	c.logger.Debugf("uploading %q (%s) as image %q", path, humanize.IBytes(uint64(fi.Size())), name)
	meta, err := c.backend.Upload(ctx, Metadata{
		Name:            name,
		DiskFormat:      FormatVMDK,
		ContainerFormat: "bare",
		Size:            fi.Size(),
	}, f)
	if err != nil {
		return "", errors.Annotatef(err, "uploading image %q", name)
	}
	c.logger.Infof("uploaded image %q with id %q", name, meta.ID)
	return meta.ID, nil
}

func (c *Cache) fetch(ctx context.Context, id, path string) error {
	meta, err := c.backend.Metadata(ctx, id)
	if err != nil {
		return errors.Trace(err)
	}
	format := meta.DiskFormat
	if format == "" {
		format = FormatVMDK
	}

	// Everything is written next to the final path and renamed into
	// place, so the entry only becomes visible once complete.
	tmp, err := os.CreateTemp(c.dir, "."+id+".*.part")
	if err != nil {
		return errors.Trace(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	c.logger.Debugf("downloading image %q (%s)", id, format)
	hash := md5.New()
	n, err := c.backend.Download(ctx, id, io.MultiWriter(tmp, hash))
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Annotate(err, "downloading")
	}
	if meta.Checksum != "" {
		if sum := hex.EncodeToString(hash.Sum(nil)); sum != meta.Checksum {
			return errors.Errorf("checksum mismatch: expected %s, got %s", meta.Checksum, sum)
		}
	}
	c.logger.Debugf("downloaded image %q: %s", id, humanize.IBytes(uint64(n)))

	source := tmpPath
	if format != FormatVMDK {
		converted := tmpPath + ".vmdk"
		defer os.Remove(converted)
		if err := c.convert(ctx, tmpPath, converted, format); err != nil {
			return errors.Annotatef(err, "converting from %s", format)
		}
		source = converted
	}
	if err := os.Rename(source, path); err != nil {
		return errors.Trace(err)
	}
	c.logger.Infof("cached image %q at %q", id, path)
	return nil
}

func (c *Cache) imagePath(id string) string {
	return filepath.Join(c.dir, id+"."+FormatVMDK)
}

func ready(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

var validImageID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validateImageID(id string) error {
	if !validImageID.MatchString(id) {
		return errors.NotValidf("image id %q", id)
	}
	return nil
}

// lockName derives a juju/mutex compatible name from an image id.
func lockName(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "vix-image-" + hex.EncodeToString(sum[:])[:16]
}

func machineLock(clk clock.Clock, timeout time.Duration) AcquireLockFunc {
	return func(ctx context.Context, name string) (func(), error) {
		releaser, err := mutex.Acquire(mutex.Spec{
			Name:    name,
			Clock:   clk,
			Delay:   250 * time.Millisecond,
			Timeout: timeout,
			Cancel:  ctx.Done(),
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		return releaser.Release, nil
	}
}

func qemuImgConverter(qemuImg string) ConvertFunc {
	if qemuImg == "" {
		qemuImg = "qemu-img"
	}
	return func(ctx context.Context, src, dst, format string) error {
		out, err := utils.RunCommand(qemuImg, "convert", "-f", format, "-O", FormatVMDK, src, dst)
		if err != nil {
			return errors.Annotatef(err, "qemu-img output: %s", out)
		}
		return nil
	}
}
