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
	"net/http"
	"net/http/httptrace"
	"time"
)

// fetchTrace records connection timings of the last hop of a fetch.
type fetchTrace struct {
	start, connect time.Time
	connectTime    time.Duration
	firstByte      time.Duration
}

func (t *fetchTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn:      func(string) { t.start = time.Now() },
		ConnectStart: func(string, string) { t.connect = time.Now() },
		ConnectDone: func(string, string, error) {
			t.connectTime = time.Since(t.connect)
		},
		GotFirstResponseByte: func() {
			t.firstByte = time.Since(t.start)
		},
	}
}

// withTrace returns req with the trace attached to its context.
func (t *fetchTrace) withTrace(req *http.Request) *http.Request {
	return req.WithContext(httptrace.WithClientTrace(req.Context(), t.clientTrace()))
}
