package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTransactionID returns a globally unique payment transaction
// identifier. The UTC timestamp component keeps identifiers roughly
// sortable by creation time; the UUID component makes collisions
// under concurrent creation negligible.
func NewTransactionID() string {
	stamp := time.Now().UTC().Format("20060102150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("TXN-%s-%s", stamp, suffix)
}
