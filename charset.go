// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

package outlinks

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// toUTF8 converts an HTML or text body to UTF-8. Bodies that are already
// valid UTF-8 are returned untouched. A charset declared in the
// Content-Type header or a <meta> tag wins; otherwise the encoding is
// guessed with chardet. The original bytes are returned when conversion
// fails.
func toUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 || utf8.Valid(body) {
		return body
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") && !strings.Contains(ct, "html") {
		// the XML decoder honours the prolog encoding itself
		return body
	}

	var (
		r   io.Reader
		err error
	)
	if _, _, certain := charset.DetermineEncoding(body, contentType); certain {
		r, err = charset.NewReader(bytes.NewReader(body), contentType)
	} else {
		best, derr := chardet.NewHtmlDetector().DetectBest(body)
		if derr != nil || best == nil {
			return body
		}
		r, err = charset.NewReaderLabel(best.Charset, bytes.NewReader(body))
	}
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}
