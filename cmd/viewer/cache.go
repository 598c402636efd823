package main

import (
	"bytes"
	"encoding/binary"
	"log"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// pipelineCacheHeaderVersionOne is the version field value of the only
// cache data layout defined so far.
const pipelineCacheHeaderVersionOne uint32 = 1

// pipelineCacheHeader mirrors the fixed prelude every driver writes at the
// start of pipeline cache data: header length, header version, then the
// vendor ID, device ID and cache UUID of the device that produced it.
type pipelineCacheHeader struct {
	Length    uint32
	Version   uint32
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

func (h pipelineCacheHeader) matches(properties *core1_0.PhysicalDeviceProperties) bool {
	return h.Length > 0 &&
		h.Version == pipelineCacheHeaderVersionOne &&
		h.VendorID == properties.VendorID &&
		h.DeviceID == properties.DeviceID &&
		h.CacheUUID == properties.PipelineCacheUUID
}

// loadPipelineCacheData returns cache data from path when its header still
// matches the device it will feed. Data from another device or driver
// version is removed so the next run repopulates it; a missing file just
// means a cold start.
func loadPipelineCacheData(path string, properties *core1_0.PhysicalDeviceProperties) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var header pipelineCacheHeader
	err = binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil || !header.matches(properties) {
		log.Printf("discarding pipeline cache %s: built by another device or damaged", path)
		// not important if this fails
		_ = os.Remove(path)
		return nil
	}

	return data
}

// pipelineCacheFile is a device pipeline cache persisted across runs.
type pipelineCacheFile struct {
	path  string
	cache core1_0.PipelineCache
}

// openPipelineCache creates the device pipeline cache, seeded from disk
// when a previous run left compatible data behind. An empty path disables
// persistence; the cache itself is still created so pipeline builds always
// go through it.
func openPipelineCache(driver core1_0.CoreDeviceDriver, properties *core1_0.PhysicalDeviceProperties, path string) (*pipelineCacheFile, error) {
	var initialData []byte
	if path != "" {
		initialData = loadPipelineCacheData(path, properties)
	}

	cache, _, err := driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline cache")
	}

	return &pipelineCacheFile{path: path, cache: cache}, nil
}

// Save writes the populated cache data back to disk.
func (f *pipelineCacheFile) Save(driver core1_0.CoreDeviceDriver) error {
	if f.path == "" {
		return nil
	}

	data, _, err := driver.GetPipelineCacheData(f.cache)
	if err != nil {
		return errors.Wrap(err, "read pipeline cache data")
	}

	err = os.WriteFile(f.path, data, 0666)
	if err != nil {
		return errors.Wrap(err, "write pipeline cache file")
	}

	return nil
}

func (f *pipelineCacheFile) Destroy(driver core1_0.CoreDeviceDriver) {
	if f.cache.Initialized() {
		driver.DestroyPipelineCache(f.cache, nil)
		f.cache = core1_0.PipelineCache{}
	}
}
