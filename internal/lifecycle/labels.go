package lifecycle

import "strings"

// Label keys attached to every container this package creates. External
// tooling (the reaper, the vessel CLI) relies on these to recognize and
// garbage-collect managed containers; the dev.vessel. namespace is reserved
// and rejected from user-supplied labels.
const (
	labelNamespace = "dev.vessel."

	// LabelManaged marks a container as created by this package. Always set.
	LabelManaged = "dev.vessel.managed"

	// LabelSessionID carries the per-process session id. Omitted when the
	// container is created as reusable, so that a later process can adopt it.
	LabelSessionID = "dev.vessel.session-id"

	// LabelHash carries the spec fingerprint used for reuse matching.
	LabelHash = "dev.vessel.hash"

	// LabelCopiedFilesHash carries the checksum of all files staged into the
	// container at creation time.
	LabelCopiedFilesHash = "dev.vessel.copied-files.hash"
)

func isReservedLabel(key string) bool {
	return strings.HasPrefix(key, labelNamespace)
}
