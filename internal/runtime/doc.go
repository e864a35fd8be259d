/*
Package runtime turns an Action into handler messages.

Executors are chosen by sequence command. The ApplyExecutor decomposes an
APPLY configuration along its path tree until every branch reaches a
registered handler; the DefaultExecutor sends any other command whole to a
single destination. Both account every expected reply on the Action before
the first send, so asynchronous replies can never overtake the bookkeeping.
*/
package runtime
