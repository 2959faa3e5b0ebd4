/*
Copyright 2024 The Kernel Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package romfs

import (
	"errors"

	"golang.org/x/crypto/blake2b"
)

// trailerSize is the optional whole-image checksum trailer: a blake2b-256
// digest of every byte preceding it. Not part of the header/directory
// format an image needs to mount; VerifyTrailer is a diagnostic the
// image builder or a test fixture can opt into.
const trailerSize = blake2b.Size256

// ErrChecksumMismatch is returned by VerifyTrailer when the trailing
// digest doesn't match the preceding image bytes.
var ErrChecksumMismatch = errors.New("romfs: checksum mismatch")

// VerifyTrailer checks image's last 32 bytes against a blake2b-256 sum
// of everything before them. Images without a trailer (shorter than
// trailerSize, or one not produced with AppendTrailer) should not call
// this; it is opt-in diagnostics, not part of Open's parse path.
func VerifyTrailer(image []byte) error {
	if len(image) < trailerSize {
		return ErrCorrupt
	}
	body := image[:len(image)-trailerSize]
	want := image[len(image)-trailerSize:]
	got := blake2b.Sum256(body)
	for i := range want {
		if want[i] != got[i] {
			return ErrChecksumMismatch
		}
	}
	return nil
}

// AppendTrailer returns image with a blake2b-256 checksum of its bytes
// appended, for an image builder that wants VerifyTrailer to work on
// the output.
func AppendTrailer(image []byte) []byte {
	sum := blake2b.Sum256(image)
	return append(append([]byte{}, image...), sum[:]...)
}
