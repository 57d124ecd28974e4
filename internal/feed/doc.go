// Package feed polls external video feeds and announces new items to the
// channels that subscribed to them.
package feed
