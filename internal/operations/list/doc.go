// Package list walks paginated bucket and object listings.
//
// Listings are exposed as single-use iterators that fetch one page at a
// time, following the continuation cursor until the store reports no more
// pages. Iteration stops early when the consumer breaks out of the loop or
// when a page request fails; the error is yielded once as the final value.
package list
