package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

var sessionID = sync.OnceValue(func() string {
	return uuid.NewString()
})

// SessionID returns the id identifying this process's containers. It is
// stable for the lifetime of the process and stamped onto every non-reusable
// container as the value of LabelSessionID.
func SessionID() string {
	return sessionID()
}
