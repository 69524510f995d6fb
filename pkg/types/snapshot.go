package types

// Snapshot:
//   phase: "waiting_players" | "selecting_roles" | "ready" | "counting_down"
//        | "active" | "role_swap" | "ended" | "aborted"
//   turn_state: "waiting_choices" | "executing_kick" | "executing_dive"
//             | "showing_result" | "completed"
//   turn: number
//   scores: [number, number]   // indexed by slot
//   sudden_death: boolean
//   countdown: number          // only while counting_down; 0 means GO
//   turn_seconds_left: number
//   slots: [Slot, Slot]        // peer_id | name | preference | picked_role | role | position
//   beater_chose: boolean      // choice contents stay hidden until the turn is processed
//   keeper_chose: boolean
//   outcome: "goal" | "saved" | "miss"   // optional
//   latches: { ball_caught, goal_counted, result_message_shown }
//   ball: { position, target, progress, moving, attached }
//   rematch: [boolean, boolean]
//   winner: string             // peer id, once ended
//
// Event:
//   type: string   // e.g. "Countdown", "GoalScored", "BallCaught", "MatchEnded"
//   turn: number
//   peer_id, name, role, value, text, outcome, shot, dive, target, scores   // per type
