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

// ParsePermissions reads a Declaration's required permissions.
//
// Permissions are either attributes with a true value
// (<permissions ban_members="true"/>) or child elements
// (<permissions><ban_members/></permissions>).  Order is document
// order with attributes first.
func ParsePermissions(decl *Map) []string {
	x, have := decl.Get("permissions")
	if !have {
		return nil
	}
	var acc []string
	for _, entry := range AsList(x) {
		switch vv := entry.(type) {
		case *Map:
			vv.Attrs().Range(func(k string, v interface{}) bool {
				if b, is := asBool(v); is && b {
					acc = append(acc, k)
				}
				return true
			})
			vv.Range(func(k string, _ interface{}) bool {
				if k != AttrKey && k != TextKey {
					acc = append(acc, k)
				}
				return true
			})
		case string:
			if vv != "" {
				acc = append(acc, vv)
			}
		}
	}
	return acc
}

// CheckPermissions checks every required permission against the
// principal and reports all that are missing.
func CheckPermissions(required []string, p Principal) error {
	var missing []string
	for _, perm := range required {
		if !p.Permissions[perm] {
			missing = append(missing, perm)
		}
	}
	if 0 < len(missing) {
		return &InsufficientPermissions{Missing: missing}
	}
	return nil
}
