// Package events streams progress updates from a running flow to a remote observer.
package events
