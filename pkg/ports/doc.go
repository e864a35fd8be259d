/*
Package ports defines the driven ports (interfaces) of the GMP dispatcher.

These interfaces decouple the dispatch core from the transport that carries
messages to instrument handlers and from the registry that knows which
handlers exist.

# Key Interfaces

  - ActionSender: Synchronous round trip of one ActionMessage to a handler.
  - ActionMessageBuilder: Projects an Action onto one handler path.
  - CommandHandlers: Snapshot of the paths that have an APPLY handler.
  - HandlerRegistry: A CommandHandlers that can be modified.
  - CommandUpdater: Entry point of asynchronous handler replies.
*/
package ports
