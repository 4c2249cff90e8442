package controller

import (
	"context"

	"github.com/truevfs/truevfs/vfspath"
)

// lockSet tracks which mount points the current owner already holds a
// lock on, carried on context.Context so the locking decorator can
// detect the "child before parent" ordering violation of §5 and
// signal NeedsLockRetry instead of risking deadlock.
type lockSet struct {
	held []*vfspath.MountPoint
}

type lockSetKey struct{}

func lockSetFrom(ctx context.Context) *lockSet {
	if ls, ok := ctx.Value(lockSetKey{}).(*lockSet); ok {
		return ls
	}
	return &lockSet{}
}

func (ls *lockSet) withCtx(ctx context.Context, mp *vfspath.MountPoint) context.Context {
	next := &lockSet{held: append(append([]*vfspath.MountPoint{}, ls.held...), mp)}
	return context.WithValue(ctx, lockSetKey{}, next)
}

// isDescendant reports whether mp is strictly nested inside ancestor
// (ancestor appears in mp's chain, but mp != ancestor).
func isDescendant(mp, ancestor *vfspath.MountPoint) bool {
	if mp.Equal(ancestor) {
		return false
	}
	for cur := mp.Parent; cur != nil; cur = cur.Parent {
		if cur.Equal(ancestor) {
			return true
		}
	}
	return false
}

// violatesOrder reports whether acquiring a lock on mp while already
// holding the locks in ls would lock a descendant of mp after one of
// mp's ancestors-or-siblings is already held out of order: concretely,
// if the owner already holds the lock of some mount point that is a
// strict descendant of mp, acquiring mp now would be locking a parent
// after its child, which is forbidden.
func (ls *lockSet) violatesOrder(mp *vfspath.MountPoint) bool {
	for _, held := range ls.held {
		if isDescendant(held, mp) {
			return true
		}
	}
	return false
}
