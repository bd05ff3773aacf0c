package size

import "fmt"

// ReadSummary quotes at most the first size bytes of data for logging and
// notes how many were left out.
func ReadSummary(data []byte, size int) string {
	if len(data) <= size {
		return fmt.Sprintf("%q", data)
	}
	return fmt.Sprintf("%q ...%d", data[:size], len(data)-size)
}
