package details

import "github.com/gren-lang/grenc/internal/pkgname"

// kernelWhitelist is the fixed set of packages permitted to ship raw
// JavaScript "kernel" modules alongside their .gren sources (§4.2, §9(c):
// "a fixed set known to the implementation"). It is intentionally not
// configurable — extending it means shipping a new compiler.
var kernelWhitelist = map[pkgname.Name]bool{
	{Author: "gren-lang", Project: "core"}:    true,
	{Author: "gren-lang", Project: "browser"}: true,
	{Author: "gren-lang", Project: "node"}:    true,
}

// IsKernelPrivileged reports whether pkg may host kernel modules.
func IsKernelPrivileged(pkg pkgname.Name) bool {
	return kernelWhitelist[pkg]
}
