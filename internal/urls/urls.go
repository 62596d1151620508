package urls

// Documentation URLs for guides and troubleshooting
// All URLs point to the documentation site at https://tobrk.github.io/lanscout/

// GettingStarted is the quick start guide covering installation and a
// first scan of the local network.
const GettingStarted = "https://tobrk.github.io/lanscout/getting-started/"

// ServiceTypes is the reference list of common DNS-SD service types
// worth querying for (printers, media, file sharing, and so on).
const ServiceTypes = "https://tobrk.github.io/lanscout/service-types/"

// Troubleshooting provides solutions to common issues: empty scan
// results, firewalled multicast, and interface selection.
const Troubleshooting = "https://tobrk.github.io/lanscout/troubleshooting/"

// IssueTracker is where bugs and feature requests are filed.
const IssueTracker = "https://github.com/tobrk/lanscout/issues"
