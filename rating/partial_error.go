/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package rating

import (
	"fmt"
	"sort"
	"strings"
)

// PartialError reports that a per-participant store update failed for a
// subset of participants while the rest were applied. The in-memory session
// transition it accompanies has already committed; callers log and surface
// it but do not roll back.
type PartialError struct {
	Op       string
	Failures map[string]error
}

func (e *PartialError) add(id string, err error) {
	if e.Failures == nil {
		e.Failures = make(map[string]error)
	}
	e.Failures[id] = err
}

func (e *PartialError) orNil() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}

// FailedIDs returns the identities whose updates failed, sorted.
func (e *PartialError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *PartialError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rating %v failed for %v participant(s):", e.Op,
		len(e.Failures))
	for _, id := range e.FailedIDs() {
		fmt.Fprintf(&sb, " %v: %v;", id, e.Failures[id])
	}
	return strings.TrimSuffix(sb.String(), ";")
}
