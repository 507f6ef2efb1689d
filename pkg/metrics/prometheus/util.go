package prometheus

import "strconv"

func formatSessionID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
