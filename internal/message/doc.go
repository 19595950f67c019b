// Package message defines what travels through the relay.
//
// Frames are the transport view: an opaque payload plus its classification
// (text or binary). The relay forwards frames without looking inside them.
//
// Envelopes are the application view used by peers:
//
//	{"sender":"A","receiver":"*","api":"x","valueString":"hi","valueInt":0,"valueFloat":0,"valueBool":false}
//
// Only consuming peers decode envelopes and dispatch on the api tag.
package message
