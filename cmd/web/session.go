package main

type sessionKey string

const profileIDSessionKey = sessionKey("profileID")
