// Package bot wires inbound gateway updates to the routing engines and
// implements the administrative slash commands.
package bot
