/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tmpl

import "fmt"

// IndexOutOfRangeError reports a star, that, or input reference beyond
// what the match or the history provides.  It is a degraded-tag error:
// the evaluation substitutes the empty string and continues.
type IndexOutOfRangeError struct {
	// Kind is "input", "that", or "topic" for wildcard references,
	// or "history" for that/input history references.
	Kind  string
	Index int

	// Have is how many entries were actually available.
	Have int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range (have %d)",
		e.Kind, e.Index, e.Have)
}

// RecursionLimitExceededError reports a rematch chain deeper than the
// configured bound.  The engine substitutes its fallback response at
// the point of failure.
type RecursionLimitExceededError struct {
	Limit int

	// Text is the re-matched text that would have exceeded the
	// bound.
	Text string
}

func (e *RecursionLimitExceededError) Error() string {
	return fmt.Sprintf("recursion limit %d exceeded rematching %q",
		e.Limit, e.Text)
}
