package common

// SyncTag is the application-chosen identifier registered with the
// platform's deferred-retry capability; a wake-up carrying this tag means
// "pending mutations may now be transmittable".
const SyncTag = "sync-discoveries"
