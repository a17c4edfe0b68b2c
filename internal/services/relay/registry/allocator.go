package registry

import perr "bridgebot/internal/platform/errors"

// AllocatePort returns the lowest free port at or above base, scanning up to
// span candidates. Pure given the used set; exhaustion is a creation failure
// the caller surfaces, never a crash
func AllocatePort(used map[int]struct{}, base, span int) (int, error) {
	for p := base; p < base+span; p++ {
		if _, taken := used[p]; !taken {
			return p, nil
		}
	}
	return 0, perr.Unavailablef("no free port in %d..%d", base, base+span-1)
}
