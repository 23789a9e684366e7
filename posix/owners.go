package posix

import (
	"os/user"
	"strconv"
)

// unknownOwner is reported when the file system exposes no ownership at all, as in-memory file systems do.
const unknownOwner = "?"

// ownerNames resolves uid and gid to names, remembering answers for the duration of one listing.
// An id with no matching account is reported numerically.
type ownerNames struct {
	users  map[uint32]string
	groups map[uint32]string
}

func newOwnerNames() *ownerNames {
	return &ownerNames{users: map[uint32]string{}, groups: map[uint32]string{}}
}

func (o *ownerNames) user(uid uint32) string {
	if name, ok := o.users[uid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(uid), 10)
	name := id
	if u, err := user.LookupId(id); err == nil {
		name = u.Username
	}
	o.users[uid] = name
	return name
}

func (o *ownerNames) group(gid uint32) string {
	if name, ok := o.groups[gid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(gid), 10)
	name := id
	if g, err := user.LookupGroupId(id); err == nil {
		name = g.Name
	}
	o.groups[gid] = name
	return name
}
