// Package pathfind finds routes through a roundabout [graph.Graph].
//
// # Simple Paths
//
// All routing is built on one recursive enumerator of simple paths: a depth
// first search that marks a vertex visited only while it is on the active
// branch and unmarks it on backtrack, so a vertex never repeats within a path
// but may appear in many different paths. [SimplePaths] yields each path as an
// independent snapshot in DFS discovery order, which follows the successor
// order of the graph and is therefore deterministic. [AllSimplePaths] collects
// them; its output grows exponentially with the number of lane changes and is
// meant for small graphs and tests.
//
// # Shortest and Outer-Lane Paths
//
// [ShortestPath] returns the path with the fewest vertices. Ties are broken by
// discovery order: the first minimal path found by the enumerator wins. The
// search prunes any prefix that can no longer beat the incumbent, which returns
// exactly the path a full enumeration would pick while visiting only a small
// fraction of the tree.
//
// [OuterLanePath] runs the same search restricted to the outer ring plus the
// entry and exit spurs. Heavy vehicles use it to stay out of inner lanes.
//
// "Shortest" counts vertices, not meters or seconds.
//
// # Allowed Sets
//
// Every search accepts an optional [Allowed] set built with [Restrict]. A nil
// set means the whole graph. Source and destination must be members.
//
// # Girth
//
// [Girth] returns the length of the shortest directed cycle inside an allowed
// set. The roundabout uses it to bound how many vehicles may be inside the
// ring body at once.
package pathfind
