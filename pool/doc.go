// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pool caches expensive transport sessions keyed by effective
connection configuration.

A Pool maps each distinct Config to one Session, a reference-counted
wrapper around an opaque Transport handle. Requests with equal
configurations share a Session; a Session whose active-operation count
has been zero for longer than the idle threshold is invalidated by a
background sweep. Shutdown is awaitable: it resolves only once every
pooled and draining session has finished tearing down.

The package does no I/O of its own. Transport construction is delegated
to a Factory and teardown to Transport.Close, so pool locking never
overlaps network activity.
*/
package pool
