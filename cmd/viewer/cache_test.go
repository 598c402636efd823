package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

var testCacheUUID = uuid.MustParse("c7a2391e-8f14-4e6b-9d5a-2b83f1640b77")

func testDeviceProperties() *core1_0.PhysicalDeviceProperties {
	return &core1_0.PhysicalDeviceProperties{
		VendorID:          0x10de,
		DeviceID:          0x2204,
		PipelineCacheUUID: testCacheUUID,
	}
}

func matchingCacheHeader() pipelineCacheHeader {
	return pipelineCacheHeader{
		Length:    32,
		Version:   pipelineCacheHeaderVersionOne,
		VendorID:  0x10de,
		DeviceID:  0x2204,
		CacheUUID: testCacheUUID,
	}
}

func encodeCacheData(t *testing.T, header pipelineCacheHeader, payload []byte) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, common.ByteOrder, header))
	buf.Write(payload)
	return buf.Bytes()
}

func TestPipelineCacheHeaderMatches(t *testing.T) {
	properties := testDeviceProperties()

	assert.True(t, matchingCacheHeader().matches(properties))

	header := matchingCacheHeader()
	header.Length = 0
	assert.False(t, header.matches(properties))

	header = matchingCacheHeader()
	header.Version = 2
	assert.False(t, header.matches(properties))

	header = matchingCacheHeader()
	header.VendorID = 0x8086
	assert.False(t, header.matches(properties))

	header = matchingCacheHeader()
	header.DeviceID++
	assert.False(t, header.matches(properties))

	header = matchingCacheHeader()
	header.CacheUUID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.False(t, header.matches(properties))
}

func TestLoadPipelineCacheData(t *testing.T) {
	data := encodeCacheData(t, matchingCacheHeader(), []byte{0xde, 0xad, 0xbe, 0xef})
	path := writeTempFile(t, "cache.bin", data)

	loaded := loadPipelineCacheData(path, testDeviceProperties())
	assert.Equal(t, data, loaded)

	// A matching file stays on disk.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadPipelineCacheDataRejectsForeignDevice(t *testing.T) {
	header := matchingCacheHeader()
	header.DeviceID++
	path := writeTempFile(t, "cache.bin", encodeCacheData(t, header, nil))

	loaded := loadPipelineCacheData(path, testDeviceProperties())
	assert.Nil(t, loaded)

	// Stale data is removed so the next run starts fresh.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadPipelineCacheDataRejectsTruncatedFile(t *testing.T) {
	path := writeTempFile(t, "cache.bin", []byte{1, 2, 3})

	loaded := loadPipelineCacheData(path, testDeviceProperties())
	assert.Nil(t, loaded)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadPipelineCacheDataMissingFile(t *testing.T) {
	loaded := loadPipelineCacheData(filepath.Join(t.TempDir(), "missing.bin"), testDeviceProperties())
	assert.Nil(t, loaded)
}
