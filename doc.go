// Package xmlcord provides a declarative action engine for chat bots.
//
// An operator describes commands, event reactions, scheduled tasks,
// interactive views, and modals in an XML document.  Package 'markup'
// loads and normalizes the document, package 'config' resolves it,
// and package 'core' synthesizes handlers and registers them with a
// Session.  Sessions are in 'sio' (JSON over stdio, MQTT, or
// WebSockets) and 'discord'.  Command-line tools are in `cmd`.
package xmlcord
