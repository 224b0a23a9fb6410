// Package diff computes, encodes and applies edit scripts between two
// snapshots of serialized text.
//
// An edit script is an ordered list of [Op] values. Each op either retains
// units from the base text, deletes units from it, or inserts literal text.
// Units are characters (Unicode code points) or lines, selected by a
// [Granularity] shared with the rope package.
//
// Scripts produced by [Compute] are total: the retained and deleted counts
// add up to the length of the base text, so the receiver can detect a
// truncated or mismatched script.
//
// On the wire a script is a flat JSON array: a string is an insert, a
// positive integer a retain and a negative integer a delete.
//
//	ops, _ := diff.Compute("A", "AB", diff.Char)  // [1, "B"]
//	out, _ := diff.Apply("A", ops, diff.Char)     // "AB"
package diff
