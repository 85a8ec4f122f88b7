// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of a byte slice, grouped into
// little-endian words. A trailing partial word is shown byte by byte.
func wordString(b []byte) string {
	if len(b) > 12 {
		return wordString(b[:12]) + " ..."
	}

	s := make([]byte, 0, len(b)*3)
	for len(b) >= 4 {
		if len(s) > 0 {
			s = append(s, ' ')
		}
		for i := 3; i >= 0; i-- {
			s = append(s, hex[b[i]>>4], hex[b[i]&0x0f])
		}
		b = b[4:]
	}
	for _, c := range b {
		if len(s) > 0 {
			s = append(s, ' ')
		}
		s = append(s, hex[c>>4], hex[c&0x0f])
	}
	return string(s)
}
