package handlers

import "errors"

var errRelayDown = errors.New("relay not connected")
