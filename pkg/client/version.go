package client

// Version is the published SDK version.
const Version = "0.1.7"
