// Package ntapi provides typed wrappers over host methods.
//
// Each API takes an ntcall.Invoker, normally the process's *ntcall.Bridge,
// and knows which reply convention, namespace and channel its methods need.
// Replies whose "result" is non-zero are returned as host rejections.
package ntapi
