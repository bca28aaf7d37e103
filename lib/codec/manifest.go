// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// manifestEncMode is the CBOR encoder configured with Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. The same manifest
// value always produces identical bytes, which §8's "Determinism"
// property depends on.
var manifestEncMode cbor.EncMode

// manifestDecMode is the CBOR decoder used to read back a manifest.
var manifestDecMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	manifestEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	manifestDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalManifest encodes v (the archive manifest) to CBOR using Core
// Deterministic Encoding.
func MarshalManifest(v any) ([]byte, error) {
	return manifestEncMode.Marshal(v)
}

// UnmarshalManifest decodes CBOR manifest bytes into v.
func UnmarshalManifest(data []byte, v any) error {
	return manifestDecMode.Unmarshal(data, v)
}
