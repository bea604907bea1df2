// Command montage turns edit decision lists into ffmpeg filter graphs and
// renders them.
//
// Stateless commands (validate, optimize, compile, inspect, watch) work on an
// EDL file directly. render, jobs, and serve share the SQLite job store under
// paths.state_dir; serve runs the HTTP API together with a background render
// worker, and holds a lock so only one server uses a state directory.
package main
