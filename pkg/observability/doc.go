/*
Package observability provides tools for monitoring the GMP dispatcher.

Both Metrics and LogHooks produce domain.DispatchHooks, so they plug into
gmp.WithDispatchHooks and can be combined with DispatchHooks.Merge.
*/
package observability
