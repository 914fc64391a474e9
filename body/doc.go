// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package body describes how a request body's bytes are produced and, more
importantly, whether production can be replayed.

A Descriptor is a closed tagged variant over three replay capabilities:

• NonRestartable bodies may be produced at most once, from the start.
A one-shot io.Reader is the typical source.

• Restartable bodies may be produced any number of times, but each
production starts again from byte zero.

• Seekable bodies may be produced any number of times from any offset
within the body, for example a byte slice or a file.

The request pipeline dispatches on the capability tag, never on the
byte source itself, to decide whether a body may safely be replayed
after a redirect. Misusing a descriptor — replaying a NonRestartable
body, or starting a non-Seekable body at a non-zero offset — fails
synchronously with ErrRestartingNonRestartable or ErrSeekingNonSeekable
before any bytes are produced.
*/
package body
