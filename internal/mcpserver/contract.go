package mcpserver

// TaskFormatContract describes how plans and tasks are shaped, for LLM
// consumers that add or edit tasks.
const TaskFormatContract = `# Planner Task Format

A plan is the ordered list of tasks for one calendar day.

## Dates

- Dates are written ` + "`YYYY-MM-DD`" + ` (e.g. ` + "`2026-10-19`" + `) and must be real calendar days.
  ` + "`2026-02-30`" + ` and ` + "`2026-1-5`" + ` are rejected.
- Omitting the date means today in the server's time zone.

## Task text

1. Leading and trailing whitespace is trimmed before anything else.
2. Text must not be empty after trimming.
3. Text is at most 200 characters (counted as Unicode code points).
4. Text is plain. Markup is stored as typed and escaped when displayed.

## Ordering

- New tasks go to the top of the plan.
- Completing a task moves it to the bottom.
- Marking a completed task pending again moves it back to the top.
- Editing keeps the task where it is.

## Fields

| Field | Meaning |
|---|---|
| id | Stable identifier, unique within the day |
| text | The task text |
| completed | Whether the task is done |
| createdAt | When the task was added (RFC 3339) |
| completedAt | When it was completed, or null |

## Statistics

` + "`completionRate`" + ` is the percentage of completed tasks rounded to the nearest
whole number (0 for an empty plan). Statistics always cover the whole plan,
whatever filter is applied to the task list.
`
