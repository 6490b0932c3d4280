// ABOUTME: Package ai generates assistant replies to user chat messages
// ABOUTME: Scheduler detaches reply jobs from connection lifetimes

// Package ai produces assistant replies for user messages. The Scheduler
// accepts fire-and-forget jobs from the chat relay, runs them against a
// Completer with a configurable retry policy, persists successful replies
// as BOT messages, and broadcasts them into the conversation's room.
package ai
