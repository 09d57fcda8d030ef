// Package banter provides rule-driven conversational machinery.
//
// The pattern matcher is in package 'match', the template language in
// 'tmpl', and the engine that ties them to per-conversation state is
// in 'bot'.  Some command-line tools are in 'cmd'.
package banter
