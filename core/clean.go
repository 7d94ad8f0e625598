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

package core

import "strings"

// Clean normalizes a value that came from a markup tree.
//
// A *Map whose only key is TextKey collapses to its (cleaned) text.
// The strings "true" and "false" (in any case) become bools.  Maps and
// lists are cleaned recursively.  Clean never modifies its input, and
// Clean(Clean(x)) is equal to Clean(x).
func Clean(x interface{}) interface{} {
	switch vv := x.(type) {
	case *Map:
		if vv == nil {
			return NewMap()
		}
		if vv.Len() == 1 && vv.Has(TextKey) {
			text, _ := vv.Get(TextKey)
			return Clean(text)
		}
		acc := NewMap()
		vv.Range(func(k string, v interface{}) bool {
			acc.Set(k, Clean(v))
			return true
		})
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			acc[i] = Clean(y)
		}
		return acc
	case string:
		switch {
		case strings.EqualFold(vv, "true"):
			return true
		case strings.EqualFold(vv, "false"):
			return false
		}
		return vv
	default:
		return x
	}
}
