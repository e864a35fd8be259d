/*
Package actions tracks sequence commands in flight.

The Manager keeps every Action that still waits for handler replies, the
CommandUpdater feeds asynchronous replies into it, and the WaitingListener
lets a caller block on the final response with its own deadline.
*/
package actions
