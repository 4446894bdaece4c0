// Package channel links named-channel subscribers to their publishers
// across a workflow and its sub-graphs.
//
// A subscriber resolves to the nearest enclosing publisher of the same
// name. Transparent hosts (groups, includes) are flattened into the
// enclosing workflow; nested hosts are scanned recursively and any names
// left unresolved inside them are escalated to the enclosing scan.
// Disabled nodes are never scanned.
package channel
