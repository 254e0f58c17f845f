/*package lib contains the run modes of the vizgrid command line tool. The
functions in this particular package mainly glue together configuration,
loading, and caching so that other programs can run a mode without going
through the command line. Almost all of the heavy lifting is done by lib/'s
subpackages.
*/
package lib

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/phil-mansfield/vizgrid/lib/format"
)

var (
	// Version is the version of the software. This can potentially be used
	// to differentiate between breaking changes to the input/output format.
	Version uint64 = 0x1
)

// CacheExtension is the extension of the grid cache files written by convert.
const CacheExtension = ".vgr"

// CachePath returns the name of the cache file for an input file. If output
// is empty, the cache file sits next to the input with its extension
// replaced. Otherwise output is a file format expanded with the input's step.
func CachePath(output string, file format.File) (string, error) {
	if output == "" {
		ext := filepath.Ext(file.Name)
		return strings.TrimSuffix(file.Name, ext) + CacheExtension, nil
	}
	return format.ExpandOutputFormat(output, file.Step)
}

// SystemByteOrder returns the byte order of the machine vizgrid is running
// on. Cache files are written in this order.
func SystemByteOrder() binary.ByteOrder {
	// See https://stackoverflow.com/questions/51332658/any-better-way-to-check-endianness-in-go/51332762
	b := [2]byte{}
	*(*uint16)(unsafe.Pointer(&b[0])) = uint16(0x0001)
	if b[0] == 0 {
		return binary.BigEndian
	} else {
		return binary.LittleEndian
	}
}
