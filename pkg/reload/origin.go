package reload

import "strings"

// OriginPrefix marks source spans produced by a reload compilation. The
// prefix repeats once per nesting level: code reloaded from inside already
// reloaded code carries it twice, and so on.
const OriginPrefix = "_hotloop_"

// MakeOrigin derives the synthetic origin for a unit reloaded at a site in
// file. The file may itself be an origin, in which case the prefix stacks.
func MakeOrigin(file string) string {
	return OriginPrefix + file
}

// Depth counts how many reload levels an origin carries. A plain path has
// depth zero.
func Depth(origin string) int {
	n := 0
	for strings.HasPrefix(origin, OriginPrefix) {
		origin = origin[len(OriginPrefix):]
		n++
	}
	return n
}

// RealPath strips every origin prefix, returning the on-disk path.
func RealPath(origin string) string {
	for strings.HasPrefix(origin, OriginPrefix) {
		origin = origin[len(OriginPrefix):]
	}
	return origin
}
