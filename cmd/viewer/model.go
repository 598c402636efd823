package main

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	vkngmath "github.com/vkngwrapper/math"
)

// Vertex is the GPU vertex layout: position, texture coordinate and
// normal, tightly packed. The attribute descriptions below must stay in
// step with shaders/shader.vert.
type Vertex struct {
	Position vkngmath.Vec3[float32]
	TexCoord vkngmath.Vec2[float32]
	Normal   vkngmath.Vec3[float32]
}

func getVertexBindingDescription() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func getVertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Normal)),
		},
	}
}

// Model is decoded mesh data ready for upload.
type Model struct {
	Vertices []Vertex
	Indices  []uint32
}

// vertexKey identifies one unique combination of position, texture
// coordinate and normal indices from the source file. Missing attributes
// are -1 so vertices without them still deduplicate correctly.
type vertexKey struct {
	position int
	uv       int
	normal   int
}

type modelBuilder struct {
	decoder *obj.Decoder

	unique   map[vertexKey]uint32
	vertices []Vertex
	indices  []uint32

	// needNormal marks vertices whose source had no normal; they get one
	// reconstructed from the surrounding faces after all faces are read.
	needNormal []bool
}

func newModelBuilder(decoder *obj.Decoder) *modelBuilder {
	return &modelBuilder{
		decoder: decoder,
		unique:  make(map[vertexKey]uint32),
	}
}

func attributeIndex(indices []int, faceIndex int) int {
	if faceIndex < len(indices) {
		return indices[faceIndex]
	}
	return -1
}

func (b *modelBuilder) addVertex(face obj.Face, faceIndex int) {
	key := vertexKey{
		position: face.Vertices[faceIndex],
		uv:       attributeIndex(face.Uvs, faceIndex),
		normal:   attributeIndex(face.Normals, faceIndex),
	}

	index, vertexExists := b.unique[key]
	if !vertexExists {
		vert := Vertex{Position: vkngmath.Vec3[float32]{
			b.decoder.Vertices[key.position*3],
			b.decoder.Vertices[key.position*3+1],
			b.decoder.Vertices[key.position*3+2],
		}}

		if key.uv >= 0 {
			// The file's v axis grows upward; flip it for Vulkan.
			vert.TexCoord = vkngmath.Vec2[float32]{
				b.decoder.Uvs[key.uv*2],
				1.0 - b.decoder.Uvs[key.uv*2+1],
			}
		}

		if key.normal >= 0 {
			vert.Normal = vkngmath.Vec3[float32]{
				b.decoder.Normals[key.normal*3],
				b.decoder.Normals[key.normal*3+1],
				b.decoder.Normals[key.normal*3+2],
			}
		}

		index = uint32(len(b.vertices))
		b.vertices = append(b.vertices, vert)
		b.needNormal = append(b.needNormal, key.normal < 0)
		b.unique[key] = index
	}

	b.indices = append(b.indices, index)
}

func positionVec(v Vertex) mgl32.Vec3 {
	return mgl32.Vec3{v.Position.X, v.Position.Y, v.Position.Z}
}

// computeMissingNormals reconstructs normals for vertices the file left
// bare by accumulating the area-weighted face normals around each one.
func (b *modelBuilder) computeMissingNormals() {
	var anyMissing bool
	for _, missing := range b.needNormal {
		if missing {
			anyMissing = true
			break
		}
	}
	if !anyMissing {
		return
	}

	accumulated := make([]mgl32.Vec3, len(b.vertices))
	for i := 0; i+2 < len(b.indices); i += 3 {
		i0, i1, i2 := b.indices[i], b.indices[i+1], b.indices[i+2]

		p0 := positionVec(b.vertices[i0])
		faceNormal := positionVec(b.vertices[i1]).Sub(p0).Cross(positionVec(b.vertices[i2]).Sub(p0))

		accumulated[i0] = accumulated[i0].Add(faceNormal)
		accumulated[i1] = accumulated[i1].Add(faceNormal)
		accumulated[i2] = accumulated[i2].Add(faceNormal)
	}

	for i := range b.vertices {
		if !b.needNormal[i] || accumulated[i].Len() == 0 {
			continue
		}

		normal := accumulated[i].Normalize()
		b.vertices[i].Normal = vkngmath.Vec3[float32]{normal.X(), normal.Y(), normal.Z()}
	}
}

// loadModel decodes a Wavefront OBJ into deduplicated vertices and a
// uint32 index list, triangulating faces on the way. A sibling .mtl file
// is used when present; the decoder falls back to its default material
// otherwise.
func loadModel(path string) (*Model, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open model file")
	}
	defer meshFile.Close()

	var matReader io.Reader
	matFile, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl")
	if err == nil {
		defer matFile.Close()
		matReader = matFile
	}

	decoder, err := obj.DecodeReader(meshFile, matReader)
	if err != nil {
		return nil, errors.Wrap(err, "decode model file")
	}

	builder := newModelBuilder(decoder)
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			// We need to triangularize faces
			for i := 2; i < len(face.Vertices); i++ {
				builder.addVertex(face, 0)
				builder.addVertex(face, i-1)
				builder.addVertex(face, i)
			}
		}
	}
	builder.computeMissingNormals()

	if len(builder.indices) == 0 {
		return nil, errors.Newf("model %s contains no faces", path)
	}

	return &Model{Vertices: builder.vertices, Indices: builder.indices}, nil
}

// Texture is decoded pixel data in tightly packed RGBA order.
type Texture struct {
	Pixels []byte
	Width  int
	Height int
}

// loadTexture decodes a PNG into RGBA bytes. An empty path yields a single
// white pixel so untextured models still render with their shading intact.
func loadTexture(path string) (*Texture, error) {
	if path == "" {
		return &Texture{Pixels: []byte{0xff, 0xff, 0xff, 0xff}, Width: 1, Height: 1}, nil
	}

	imageBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read texture file")
	}

	decodedImage, err := png.Decode(bytes.NewBuffer(imageBytes))
	if err != nil {
		return nil, errors.Wrap(err, "decode texture file")
	}

	imageBounds := decodedImage.Bounds()
	imageDims := imageBounds.Size()

	pixelData := make([]byte, 0, imageDims.X*imageDims.Y*4)
	for y := imageBounds.Min.Y; y < imageBounds.Max.Y; y++ {
		for x := imageBounds.Min.X; x < imageBounds.Max.X; x++ {
			r, g, b, a := decodedImage.At(x, y).RGBA()
			pixelData = append(pixelData, byte(r), byte(g), byte(b), byte(a))
		}
	}

	return &Texture{Pixels: pixelData, Width: imageDims.X, Height: imageDims.Y}, nil
}
