// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recall/core"
)

// MarshalTurn serializes a ConversationTurn to JSON.
func MarshalTurn(turn core.ConversationTurn) ([]byte, error) {
	data, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalTurn deserializes a ConversationTurn from JSON.
func UnmarshalTurn(data []byte) (core.ConversationTurn, error) {
	var turn core.ConversationTurn
	if err := json.Unmarshal(data, &turn); err != nil {
		return core.ConversationTurn{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return turn, nil
}

// EncodeVector packs a vector as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector length %d is not a multiple of 4", ErrTruncatedData, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

// MarshalChunk serializes a DocumentChunk to bytes.
func MarshalChunk(chunk *core.DocumentChunk) []byte {
	size := ord.String.Size(chunk.Index) +
		ord.String.Size(chunk.ChunkID) +
		ord.String.Size(chunk.Text) +
		vectorSize(chunk.Embedding)
	buf := make([]byte, size)
	n := ord.String.Marshal(chunk.Index, buf)
	n += ord.String.Marshal(chunk.ChunkID, buf[n:])
	n += ord.String.Marshal(chunk.Text, buf[n:])
	marshalVector(chunk.Embedding, buf[n:])
	return buf
}

// UnmarshalChunk deserializes a DocumentChunk from bytes.
func UnmarshalChunk(data []byte) (*core.DocumentChunk, error) {
	var (
		chunk core.DocumentChunk
		n, m  int
		err   error
	)
	if chunk.Index, m, err = ord.String.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: index: %w", ErrSerializationFailed, err)
	}
	n += m
	if chunk.ChunkID, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: chunk id: %w", ErrSerializationFailed, err)
	}
	n += m
	if chunk.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}
	n += m
	if chunk.Embedding, err = unmarshalVector(data[n:]); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalIndexSpec serializes index metadata to bytes.
func MarshalIndexSpec(spec core.IndexSpec) []byte {
	metric := string(spec.Metric)
	buf := make([]byte, ord.String.Size(spec.Name)+varint.Int.Size(spec.Dimension)+ord.String.Size(metric))
	n := ord.String.Marshal(spec.Name, buf)
	n += varint.Int.Marshal(spec.Dimension, buf[n:])
	ord.String.Marshal(metric, buf[n:])
	return buf
}

// UnmarshalIndexSpec deserializes index metadata from bytes.
func UnmarshalIndexSpec(data []byte) (core.IndexSpec, error) {
	var (
		spec   core.IndexSpec
		metric string
		n, m   int
		err    error
	)
	if spec.Name, m, err = ord.String.Unmarshal(data); err != nil {
		return spec, fmt.Errorf("%w: name: %w", ErrSerializationFailed, err)
	}
	n += m
	if spec.Dimension, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return spec, fmt.Errorf("%w: dimension: %w", ErrSerializationFailed, err)
	}
	n += m
	if metric, _, err = ord.String.Unmarshal(data[n:]); err != nil {
		return spec, fmt.Errorf("%w: metric: %w", ErrSerializationFailed, err)
	}
	spec.Metric = core.DistanceMetric(metric)
	return spec, nil
}

func vectorSize(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding length: %w", ErrSerializationFailed, err)
	}
	if length < 0 || length > (len(bs)-n)/4 {
		return nil, fmt.Errorf("%w: embedding length %d", ErrTruncatedData, length)
	}
	v := make([]float32, length)
	for i := range v {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: embedding value %d: %w", ErrSerializationFailed, i, err)
		}
		v[i] = f
		n += m
	}
	return v, nil
}
