// Package pkg holds the library packages behind the blockfile command:
// the random-access file the cache sits on (ranfile), the block cache
// itself (blockfile and blockfile/block) and small utilities (util).
// None of them is an executable unit.
package pkg
