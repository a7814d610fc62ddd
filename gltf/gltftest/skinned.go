package gltftest

import (
	"fmt"
	"strings"
)

// Skinned builds a two-joint rig: a quad whose lower vertices follow
// joint_root and whose upper vertices follow joint_tip, plus a "wave"
// clip that lifts joint_tip from its bind height 1 up to 2 over one
// second. The generator string lands in asset.generator so
// exporter-specific fixups can be triggered from tests.
//
// Node layout: 0 Armature -> {1 body (mesh+skin), 2 joint_root -> 3 joint_tip}.
// The skin declares node 2 as its skeleton root.
func Skinned(generator string) []byte {
	var bin Bin

	positions := [][3]float32{
		{-0.5, 0, 0}, {0.5, 0, 0},
		{0.5, 1, 0}, {-0.5, 1, 0},
	}
	normals := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	joints := [][4]uint16{{0, 0, 0, 0}, {0, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	weights := [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	// Column-major: identity for joint_root, translate(0,-1,0) for
	// joint_tip, undoing its bind height.
	ibms := [][16]float32{
		{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1},
	}
	times := []float32{0, 1}
	values := [][3]float32{{0, 1, 0}, {0, 2, 0}}

	blocks := make([]string, 0, 8)
	for _, data := range []interface{}{
		positions, normals, joints, weights, indices, ibms, times, values,
	} {
		offset, length := bin.Put(data)
		blocks = append(blocks,
			fmt.Sprintf(`{"buffer":0,"byteOffset":%d,"byteLength":%d}`, offset, length))
	}

	doc := fmt.Sprintf(`{
"asset":{"version":"2.0","generator":%q},
"scene":0,
"scenes":[{"name":"scene","nodes":[0]}],
"nodes":[
{"name":"Armature","children":[1,2]},
{"name":"body","mesh":0,"skin":0},
{"name":"joint_root","children":[3]},
{"name":"joint_tip","translation":[0,1,0]}
],
"meshes":[{"name":"body","primitives":[{
"attributes":{"POSITION":0,"NORMAL":1,"JOINTS_0":2,"WEIGHTS_0":3},
"indices":4,
"material":0
}]}],
"materials":[{"name":"skin_mat","pbrMetallicRoughness":{"baseColorFactor":[0.8,0.8,0.8,1]},"doubleSided":true}],
"skins":[{"name":"rig","inverseBindMatrices":5,"skeleton":2,"joints":[2,3]}],
"animations":[{
"name":"wave",
"channels":[{"sampler":0,"target":{"node":3,"path":"translation"}}],
"samplers":[{"input":6,"output":7,"interpolation":"LINEAR"}]
}],
"accessors":[
{"bufferView":0,"componentType":5126,"count":4,"type":"VEC3","min":[-0.5,0,0],"max":[0.5,1,0]},
{"bufferView":1,"componentType":5126,"count":4,"type":"VEC3"},
{"bufferView":2,"componentType":5123,"count":4,"type":"VEC4"},
{"bufferView":3,"componentType":5126,"count":4,"type":"VEC4"},
{"bufferView":4,"componentType":5123,"count":6,"type":"SCALAR"},
{"bufferView":5,"componentType":5126,"count":2,"type":"MAT4"},
{"bufferView":6,"componentType":5126,"count":2,"type":"SCALAR","min":[0],"max":[1]},
{"bufferView":7,"componentType":5126,"count":2,"type":"VEC3"}
],
"bufferViews":[
%s
],
"buffers":[{"byteLength":%d}]
}`, generator, strings.Join(blocks, ",\n"), len(bin.Bytes()))

	return GLB(doc, bin.Bytes())
}
