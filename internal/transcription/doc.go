// Package transcription turns an extracted audio file into timed utterances.
//
// Three providers implement Provider: the hosted OpenAI and AssemblyAI APIs
// and a local WhisperX run. New picks one from configuration; a provider
// missing its credentials is replaced by one that fails every call with the
// configuration error, so the server still starts.
package transcription
