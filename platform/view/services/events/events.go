/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package events

// Event is what gets delivered to the listeners of a topic.
type Event interface {
	Topic() string
	Message() interface{}
}

type Listener interface {
	OnReceive(event Event)
}

// ListenerFunc adapts a plain function to a Listener.
// Function values are not comparable, so a ListenerFunc cannot be unsubscribed; wrap it in a pointer type for that.
type ListenerFunc func(event Event)

func (f ListenerFunc) OnReceive(event Event) { f(event) }

type Publisher interface {
	Publish(event Event)
}

type Subscriber interface {
	Subscribe(topic string, receiver Listener)
	Unsubscribe(topic string, receiver Listener)
}

type EventSystem interface {
	Publisher
	Subscriber
}
